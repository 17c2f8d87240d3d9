package sstv

import "fmt"

// Family groups protocols that share a scan line structure and differ only in
// timing and resolution.
type Family int

const (
	FamilyMartin Family = iota
	FamilyScottie
	FamilyRobot36
	FamilyRobot72
	FamilyPD
	FamilyWraase
)

func (f Family) String() string {
	switch f {
	case FamilyMartin:
		return "Martin"
	case FamilyScottie:
		return "Scottie"
	case FamilyRobot36:
		return "Robot36"
	case FamilyRobot72:
		return "Robot72"
	case FamilyPD:
		return "PD"
	case FamilyWraase:
		return "Wraase"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// writeLine emits the segments for the line starting at image row y.
func (f Family) writeLine(m *Mode, y int) {
	t := &m.desc.Timing
	switch f {
	case FamilyMartin:
		m.tone(SyncFrequency, t.SyncMs)
		m.tone(PorchFrequency, t.SyncPorchMs)
		m.scan(t.ScanMs, y, m.green)
		m.tone(PorchFrequency, t.SeparatorMs)
		m.scan(t.ScanMs, y, m.blue)
		m.tone(PorchFrequency, t.SeparatorMs)
		m.scan(t.ScanMs, y, m.red)
		m.tone(PorchFrequency, t.SeparatorMs)

	case FamilyScottie:
		// The sync pulse sits between blue and red, so only the first line
		// needs one up front.
		if y == 0 {
			m.tone(SyncFrequency, t.SyncMs)
		}
		m.tone(PorchFrequency, t.SeparatorMs)
		m.scan(t.ScanMs, y, m.green)
		m.tone(PorchFrequency, t.SeparatorMs)
		m.scan(t.ScanMs, y, m.blue)
		m.tone(SyncFrequency, t.SyncMs)
		m.tone(PorchFrequency, t.SyncPorchMs)
		m.scan(t.ScanMs, y, m.red)

	case FamilyRobot36:
		m.tone(SyncFrequency, t.SyncMs)
		m.tone(PorchFrequency, t.SyncPorchMs)
		m.scan(t.ScanMs, y, m.yuv.Y)
		if y%2 == 0 {
			m.tone(PorchFrequency, t.SeparatorMs)
			m.tone(RobotPorchFrequency, t.PorchMs)
			m.scan(t.ChromaScanMs, y, m.yuv.V)
		} else {
			m.tone(RobotOddSeparatorFrequency, t.SeparatorMs)
			m.tone(RobotPorchFrequency, t.PorchMs)
			m.scan(t.ChromaScanMs, y, m.yuv.U)
		}

	case FamilyRobot72:
		m.tone(SyncFrequency, t.SyncMs)
		m.tone(PorchFrequency, t.SyncPorchMs)
		m.scan(t.ScanMs, y, m.yuv.Y)
		m.tone(PorchFrequency, t.SeparatorMs)
		m.tone(RobotPorchFrequency, t.PorchMs)
		m.scan(t.ChromaScanMs, y, m.yuv.V)
		m.tone(RobotOddSeparatorFrequency, t.SeparatorMs)
		m.tone(RobotPorchFrequency, t.PorchMs)
		m.scan(t.ChromaScanMs, y, m.yuv.U)

	case FamilyPD:
		m.tone(SyncFrequency, t.SyncMs)
		m.tone(PorchFrequency, t.SyncPorchMs)
		m.scan(t.ScanMs, y, m.yuv.Y)
		m.scan(t.ScanMs, y, m.yuv.V)
		m.scan(t.ScanMs, y, m.yuv.U)
		m.scan(t.ScanMs, min(y+1, m.desc.Height-1), m.yuv.Y)

	case FamilyWraase:
		m.tone(SyncFrequency, t.SyncMs)
		m.tone(PorchFrequency, t.SyncPorchMs)
		m.scan(t.ScanMs, y, m.red)
		m.scan(t.ScanMs, y, m.green)
		m.scan(t.ScanMs, y, m.blue)
	}
}

// lineMs is the nominal duration of the line starting at row y.
func (f Family) lineMs(t Timing, y int) float64 {
	switch f {
	case FamilyMartin:
		return t.SyncMs + t.SyncPorchMs + 3*t.ScanMs + 3*t.SeparatorMs
	case FamilyScottie:
		ms := 2*t.SeparatorMs + 3*t.ScanMs + t.SyncMs + t.SyncPorchMs
		if y == 0 {
			ms += t.SyncMs
		}
		return ms
	case FamilyRobot36:
		return t.SyncMs + t.SyncPorchMs + t.ScanMs + t.SeparatorMs + t.PorchMs + t.ChromaScanMs
	case FamilyRobot72:
		return t.SyncMs + t.SyncPorchMs + t.ScanMs + 2*(t.SeparatorMs+t.PorchMs+t.ChromaScanMs)
	case FamilyPD:
		return t.SyncMs + t.SyncPorchMs + 4*t.ScanMs
	case FamilyWraase:
		return t.SyncMs + t.SyncPorchMs + 3*t.ScanMs
	default:
		return 0
	}
}
