//go:build headless

package audio

// OtoOpener is unavailable in headless builds.
func OtoOpener(int) (Sink, error) {
	return nil, ErrUnsupported
}
