package sstv

import (
	"time"

	"hacksstv/yuv"
)

// ColorSpace says which channels a protocol scans.
type ColorSpace int

const (
	ColorRGB ColorSpace = iota
	ColorYUV
)

// Timing holds a protocol's segment durations in milliseconds. Zero fields are
// unused by the protocol's family.
type Timing struct {
	SyncMs       float64 // sync pulse at 1200 Hz
	SyncPorchMs  float64 // porch following the sync pulse
	SeparatorMs  float64 // gap between color scans
	PorchMs      float64 // Robot chroma porch at 1900 Hz
	ScanMs       float64 // one color or luma scan
	ChromaScanMs float64 // one Robot chroma scan
}

// Descriptor is an immutable catalog entry.
type Descriptor struct {
	Protocol  Protocol
	Key       string
	Name      string
	ShortName string
	Family    Family
	VIS       uint8
	Width     int
	Height    int
	Color     ColorSpace
	Layout    yuv.Layout
	Timing    Timing
}

// RowsPerLine is how many image rows one Process call consumes.
func (d *Descriptor) RowsPerLine() int {
	if d.Family == FamilyPD {
		return 2
	}
	return 1
}

// Lines is the number of Process calls needed for a full image.
func (d *Descriptor) Lines() int {
	return d.Height / d.RowsPerLine()
}

// Duration is the nominal on-air time including the calibration header.
func (d *Descriptor) Duration() time.Duration {
	ms := HeaderDurationMs()
	for y := 0; y < d.Height; y += d.RowsPerLine() {
		ms += d.Family.lineMs(d.Timing, y)
	}
	return time.Duration(ms * float64(time.Millisecond))
}

var (
	martinTiming  = Timing{SyncMs: 4.862, SyncPorchMs: 0.572, SeparatorMs: 0.572}
	scottieTiming = Timing{SyncMs: 9, SyncPorchMs: 1.5, SeparatorMs: 1.5}
	pdTiming      = Timing{SyncMs: 20, SyncPorchMs: 2.08}
)

func withScan(t Timing, scanMs float64) Timing {
	t.ScanMs = scanMs
	return t
}

var catalog = [numProtocols]Descriptor{
	Martin1: {
		Key: "martin1", Name: "Martin 1", ShortName: "M1", Family: FamilyMartin,
		VIS: 44, Width: 320, Height: 256, Color: ColorRGB, Timing: withScan(martinTiming, 146.432),
	},
	Martin2: {
		Key: "martin2", Name: "Martin 2", ShortName: "M2", Family: FamilyMartin,
		VIS: 40, Width: 320, Height: 256, Color: ColorRGB, Timing: withScan(martinTiming, 73.216),
	},
	Scottie1: {
		Key: "scottie1", Name: "Scottie 1", ShortName: "S1", Family: FamilyScottie,
		VIS: 60, Width: 320, Height: 256, Color: ColorRGB, Timing: withScan(scottieTiming, 138.24),
	},
	Scottie2: {
		Key: "scottie2", Name: "Scottie 2", ShortName: "S2", Family: FamilyScottie,
		VIS: 56, Width: 320, Height: 256, Color: ColorRGB, Timing: withScan(scottieTiming, 88.064),
	},
	ScottieDX: {
		Key: "scottiedx", Name: "Scottie DX", ShortName: "SDX", Family: FamilyScottie,
		VIS: 76, Width: 320, Height: 256, Color: ColorRGB, Timing: withScan(scottieTiming, 345.6),
	},
	Robot36: {
		Key: "robot36", Name: "Robot 36", ShortName: "R36", Family: FamilyRobot36,
		VIS: 8, Width: 320, Height: 240, Color: ColorYUV, Layout: yuv.NV21,
		Timing: Timing{SyncMs: 9, SyncPorchMs: 3, SeparatorMs: 4.5, PorchMs: 1.5, ScanMs: 88, ChromaScanMs: 44},
	},
	Robot72: {
		Key: "robot72", Name: "Robot 72", ShortName: "R72", Family: FamilyRobot72,
		VIS: 12, Width: 320, Height: 240, Color: ColorYUV, Layout: yuv.YUY2,
		Timing: Timing{SyncMs: 9, SyncPorchMs: 3, SeparatorMs: 4.5, PorchMs: 1.5, ScanMs: 138, ChromaScanMs: 69},
	},
	PD50: {
		Key: "pd50", Name: "PD 50", ShortName: "PD50", Family: FamilyPD,
		VIS: 93, Width: 320, Height: 256, Color: ColorYUV, Layout: yuv.YUV440P, Timing: withScan(pdTiming, 91.52),
	},
	PD90: {
		Key: "pd90", Name: "PD 90", ShortName: "PD90", Family: FamilyPD,
		VIS: 99, Width: 320, Height: 256, Color: ColorYUV, Layout: yuv.YUV440P, Timing: withScan(pdTiming, 170.24),
	},
	PD120: {
		Key: "pd120", Name: "PD 120", ShortName: "PD120", Family: FamilyPD,
		VIS: 95, Width: 640, Height: 496, Color: ColorYUV, Layout: yuv.YUV440P, Timing: withScan(pdTiming, 121.6),
	},
	PD160: {
		Key: "pd160", Name: "PD 160", ShortName: "PD160", Family: FamilyPD,
		VIS: 98, Width: 512, Height: 400, Color: ColorYUV, Layout: yuv.YUV440P, Timing: withScan(pdTiming, 195.584),
	},
	PD180: {
		Key: "pd180", Name: "PD 180", ShortName: "PD180", Family: FamilyPD,
		VIS: 96, Width: 640, Height: 496, Color: ColorYUV, Layout: yuv.YUV440P, Timing: withScan(pdTiming, 183.04),
	},
	PD240: {
		Key: "pd240", Name: "PD 240", ShortName: "PD240", Family: FamilyPD,
		VIS: 97, Width: 640, Height: 496, Color: ColorYUV, Layout: yuv.YUV440P, Timing: withScan(pdTiming, 244.48),
	},
	PD290: {
		Key: "pd290", Name: "PD 290", ShortName: "PD290", Family: FamilyPD,
		VIS: 94, Width: 800, Height: 616, Color: ColorYUV, Layout: yuv.YUV440P, Timing: withScan(pdTiming, 228.8),
	},
	WraaseSC2180: {
		Key: "wraasesc2180", Name: "Wraase SC2-180", ShortName: "SC2-180", Family: FamilyWraase,
		VIS: 55, Width: 320, Height: 256, Color: ColorRGB,
		Timing: Timing{SyncMs: 5.5225, SyncPorchMs: 0.5, ScanMs: 235},
	},
}

func init() {
	for p := range catalog {
		catalog[p].Protocol = Protocol(p)
	}
}
