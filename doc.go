// Package md2clip renders Markdown documents into clipboard-friendly
// payloads: an HTML fragment with inline styles, an RTF document, and a
// normalized Markdown re-emission with images inlined as data URLs.
//
// # Quick Start
//
// Create a converter and convert markdown:
//
//	conv, err := md2clip.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := conv.Convert(ctx, md2clip.Input{
//	    Markdown: "# Hello\n\nWorld",
//	    Formats:  []md2clip.Format{md2clip.FormatHTML, md2clip.FormatRTF},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.HTML)
//
// # Conversion Pipeline
//
// The conversion process follows these stages:
//
//  1. Markdown parsing via Goldmark (GFM, footnotes)
//  2. Concurrent prefetch of remote images (bounded, cached per run)
//  3. Rendering each requested format from the shared tree
//
// All formats of one Convert call share a single image resolver and one
// highlight context: every output makes the same embed decision for each
// image, and colors the same token the same way.
//
// # Configuration
//
// Use functional options to customize the converter:
//
//	conv, err := md2clip.NewConverter(
//	    md2clip.WithEmbedPolicy("all"),
//	    md2clip.WithOptimization(1200, 80),
//	    md2clip.WithTheme("github"),
//	    md2clip.WithStrict(),
//	)
//
// By default only local images are embedded, images are not resized,
// highlighting is on, and failures degrade to Result.Warnings instead of
// aborting the conversion.
package md2clip
