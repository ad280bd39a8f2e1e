package main

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"screencatch/merge"
)

type mergeOptions struct {
	output     string
	method     string
	spacing    int
	background string
	cols       int
}

func newMergeCmd() *cobra.Command {
	opts := &mergeOptions{}
	cmd := &cobra.Command{
		Use:           "merge <image>...",
		Short:         "Merge existing image files into one composite",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(args, *opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "O", "", "Output image path (required)")
	cmd.Flags().StringVarP(&opts.method, "method", "m", string(merge.MethodAuto), "Merge method: auto, vertical, horizontal or grid")
	cmd.Flags().IntVarP(&opts.spacing, "spacing", "s", merge.DefaultSpacing, "Spacing between images in pixels")
	cmd.Flags().StringVarP(&opts.background, "background", "b", merge.DefaultBackground, "Background color (#rrggbb)")
	cmd.Flags().IntVar(&opts.cols, "cols", 0, "Grid columns (0 = computed)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runMerge(paths []string, opts mergeOptions) error {
	method, err := merge.ParseMethod(opts.method)
	if err != nil {
		return err
	}
	background, err := parseBackground(opts.background)
	if err != nil {
		return err
	}

	// Any decode failure fails the whole merge; no partial composite.
	images := make([]image.Image, 0, len(paths))
	for _, path := range paths {
		img, err := loadImage(path)
		if err != nil {
			return err
		}
		images = append(images, img)
	}

	composite, layout, err := merge.Merge(images, merge.Options{
		Method:     method,
		Spacing:    opts.spacing,
		Background: background,
		Cols:       opts.cols,
	})
	if err != nil {
		return err
	}

	out, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", opts.output, err)
	}
	if err := png.Encode(out, composite); err != nil {
		out.Close()
		os.Remove(opts.output)
		return fmt.Errorf("encoding %s: %w", opts.output, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", opts.output, err)
	}

	fmt.Fprintf(os.Stderr, "Merged %d images as %s (%dx%d) into %s\n",
		len(images), layout.Method, layout.Width, layout.Height, opts.output)
	return nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

func parseBackground(s string) (color.Color, error) {
	return merge.ParseColor(s)
}
