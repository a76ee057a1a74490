//go:build !darwin

package tts

import "fmt"

func newAVFoundationEngine() (Engine, error) {
	return nil, fmt.Errorf("AVFoundation engine only supports macOS")
}
