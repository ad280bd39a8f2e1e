package session

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"time"

	"screencatch/artifact"
	"screencatch/ipc"
	"screencatch/merge"
	"screencatch/screenshot"
)

// ExchangeFunc runs one selection exchange with the external overlay.
// withDescription asks the overlay to gather a description alongside the
// regions; it is true at most once per session, on the first pass.
type ExchangeFunc func(ctx context.Context, withDescription bool) (ipc.Result, error)

// CaptureFunc turns selected regions into images, 1:1 and order-preserving.
type CaptureFunc func(regions []screenshot.Region) ([]*image.RGBA, error)

// ConfirmFunc shows the saved artifact and reports whether the user asked to
// recapture it.
type ConfirmFunc func(ctx context.Context, a *artifact.Artifact) bool

// Options configures one capture session. Exchange is required; Capture
// defaults to screenshot.CaptureRegions and Now to time.Now.
type Options struct {
	OutputDir         string
	PromptDescription bool
	ShowPreview       bool
	Spacing           int
	Background        color.Color

	Exchange ExchangeFunc
	Capture  CaptureFunc
	Confirm  ConfirmFunc

	// Now is the clock used for artifact naming.
	Now func() time.Time
}

// Result is the single terminal outcome of a session. Cancellation and empty
// selections are unsuccessful results with a reason, not errors; nothing
// escapes Run as an error value or panic.
type Result struct {
	Success        bool
	Cancelled      bool
	Message        string
	Artifact       *artifact.Artifact
	RecaptureCount int
}

func failure(recaptures int, format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...), RecaptureCount: recaptures}
}

// Run drives one end-to-end capture: description+region acquisition, image
// capture, merge-or-passthrough, save, and the optional preview/recapture
// loop. The description is fixed after the first non-cancelled acquisition
// and never re-prompted; each recapture deletes the prior artifact pair. The
// loop is unbounded: it ends only on user cancellation, user acceptance or an
// unrecoverable failure.
func Run(ctx context.Context, opts Options) Result {
	if opts.Exchange == nil {
		return failure(0, "exchange function is required")
	}
	capture := opts.Capture
	if capture == nil {
		capture = screenshot.CaptureRegions
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var description string
	descriptionSet := false
	recaptures := 0

	for {
		res, err := opts.Exchange(ctx, opts.PromptDescription && !descriptionSet)
		if err != nil {
			return failure(recaptures, "region selection failed: %v", err)
		}
		if res.Cancelled() {
			return Result{Cancelled: true, Message: "capture cancelled by user", RecaptureCount: recaptures}
		}
		regions := res.Regions()
		if len(regions) == 0 {
			return failure(recaptures, "no regions selected")
		}
		if !descriptionSet {
			description = res.Description()
			descriptionSet = true
		}

		images, err := capture(regions)
		if err != nil {
			return failure(recaptures, "capture failed: %v", err)
		}

		merged := len(images) > 1
		var final image.Image
		if merged {
			// Layout policy is fixed to auto in the interactive flow.
			srcs := make([]image.Image, len(images))
			for i, img := range images {
				srcs[i] = img
			}
			composite, layout, err := merge.Merge(srcs, merge.Options{
				Method:     merge.MethodAuto,
				Spacing:    opts.Spacing,
				Background: opts.Background,
			})
			if err != nil {
				return failure(recaptures, "merge failed: %v", err)
			}
			log.Printf("Session: merged %d captures as %s (%dx%d)",
				len(images), layout.Method, layout.Width, layout.Height)
			final = composite
		} else {
			final = images[0]
		}

		art, err := artifact.Save(opts.OutputDir, final, artifact.Info{
			Description:        description,
			Regions:            regions,
			Merged:             merged,
			MergeMethod:        string(merge.MethodAuto),
			RecaptureIteration: recaptures,
			Timestamp:          now(),
		})
		if err != nil {
			return failure(recaptures, "save failed: %v", err)
		}

		if opts.ShowPreview && opts.Confirm != nil && opts.Confirm(ctx, art) {
			artifact.Remove(art)
			recaptures++
			log.Printf("Session: recapture requested (iteration %d)", recaptures)
			continue
		}

		return Result{
			Success:        true,
			Message:        fmt.Sprintf("saved %s", art.Filepath),
			Artifact:       art,
			RecaptureCount: recaptures,
		}
	}
}
