package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- binary and args are fixed by Tesseract
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// Tesseract recognises text by shelling out to the tesseract binary.
type Tesseract struct {
	Binary string
	Runner CommandRunner
}

func NewTesseract() *Tesseract {
	return &Tesseract{Binary: "tesseract", Runner: execRunner{}}
}

// Available reports whether the tesseract binary can be found on PATH.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.Binary)
	return err == nil
}

func (t *Tesseract) Recognize(ctx context.Context, img []byte, language string) (string, error) {
	if language == "" {
		language = "eng"
	}

	f, err := os.CreateTemp("", "drivesync-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(img); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	out, err := t.Runner.Run(ctx, t.Binary, f.Name(), "stdout", "-l", language)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
