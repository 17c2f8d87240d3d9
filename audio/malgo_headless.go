//go:build headless

package audio

// MalgoOpener is unavailable in headless builds.
func MalgoOpener(int) (Sink, error) {
	return nil, ErrUnsupported
}
