package clipboard

import (
	"golang.design/x/clipboard"
)

// Init must be called once before Write; it fails when no display or
// clipboard service is available.
func Init() error {
	return clipboard.Init()
}

// Write places text on the system clipboard.
func Write(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
