// Package extractor defines the contract the download pipeline uses to talk
// to a video extraction service, plus the named format presets shared by
// every backend.
package extractor

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Extractor resolves a video URL to stream metadata and transfers the
// selected stream into a local file. Transfer may block for a long time.
type Extractor interface {
	Probe(ctx context.Context, url string, sel Selector) (*ProbeResult, error)
	Transfer(ctx context.Context, url string, sel Selector, dest string) error
}

// ProbeResult describes the stream a Selector resolved to. Size is nil when
// the service cannot report a byte size.
type ProbeResult struct {
	Size      *int64
	Container string
	Title     string
	FormatID  string
}

func (p *ProbeResult) SizeKnown() bool {
	return p != nil && p.Size != nil
}

// Selector picks a single progressive (audio+video) stream in one container.
type Selector struct {
	Name      string
	Format    string // yt-dlp format expression
	Container string
	MaxHeight int
}

const DefaultPreset = "bestmp4"

var presets = map[string]Selector{
	"bestmp4": {Name: "bestmp4", Format: "best[ext=mp4]", Container: "mp4"},
	"720p":    {Name: "720p", Format: "best[height<=720][ext=mp4]", Container: "mp4", MaxHeight: 720},
	"480p":    {Name: "480p", Format: "best[height<=480][ext=mp4]", Container: "mp4", MaxHeight: 480},
	"360p":    {Name: "360p", Format: "best[height<=360][ext=mp4]", Container: "mp4", MaxHeight: 360},
}

func LookupSelector(name string) (Selector, error) {
	if name == "" {
		name = DefaultPreset
	}
	sel, ok := presets[strings.ToLower(name)]
	if !ok {
		return Selector{}, fmt.Errorf("unsupported format: %s (choose from %s)", name, strings.Join(PresetNames(), ", "))
	}
	return sel, nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
