package dataset

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrPendingOverflow indicates the pairing map exceeded the configured bound.
var ErrPendingOverflow = errors.New("webdataset: pending sample buffer exceeded")

const defaultPendingCap = 1024

// Member roles inside a shard. A sample key is complete once all three are
// present, e.g. 000042.pixelated.png, 000042.known.png, 000042.target.png.
const (
	rolePixelated = "pixelated"
	roleKnown     = "known"
	roleTarget    = "target"
)

// StreamShard streams assembled samples from the shard at path.
func StreamShard(ctx context.Context, path string, pendingCap int) (<-chan Sample, <-chan error) {
	if pendingCap <= 0 {
		pendingCap = defaultPendingCap
	}
	out := make(chan Sample)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		f, err := os.Open(path)
		if err != nil {
			errCh <- fmt.Errorf("open shard: %w", err)
			return
		}
		defer f.Close()

		tr := tar.NewReader(bufio.NewReader(f))
		pending := make(map[string]*partial)

		for {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
			}

			hdr, err := tr.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				errCh <- fmt.Errorf("read tar: %w", err)
				return
			}
			if hdr.FileInfo().IsDir() {
				continue
			}
			key, role, ok := splitMemberName(hdr.Name)
			if !ok {
				continue
			}
			data, err := io.ReadAll(tr)
			if err != nil {
				errCh <- fmt.Errorf("read %s: %w", hdr.Name, err)
				return
			}

			part := pending[key]
			if part == nil {
				part = &partial{}
				pending[key] = part
			}
			switch role {
			case rolePixelated:
				part.pixelated = data
			case roleKnown:
				part.known = data
			case roleTarget:
				part.target = data
			}

			if len(pending) > pendingCap {
				errCh <- ErrPendingOverflow
				return
			}
			if !part.ready() {
				continue
			}
			delete(pending, key)

			sample, err := part.assemble(key)
			if err != nil {
				errCh <- err
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- sample:
			}
		}

		if len(pending) > 0 {
			errCh <- fmt.Errorf("%d samples incomplete", len(pending))
		}
	}()

	return out, errCh
}

// splitMemberName turns "dir/000042.known.png" into ("000042", "known").
func splitMemberName(name string) (key, role string, ok bool) {
	base := filepath.Base(name)
	switch strings.ToLower(filepath.Ext(base)) {
	case ".png", ".jpg", ".jpeg":
	default:
		return "", "", false
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	roleExt := filepath.Ext(stem)
	if roleExt == "" {
		return "", "", false
	}
	role = strings.ToLower(strings.TrimPrefix(roleExt, "."))
	switch role {
	case rolePixelated, roleKnown, roleTarget:
	default:
		return "", "", false
	}
	return strings.TrimSuffix(stem, roleExt), role, true
}

type partial struct {
	pixelated []byte
	known     []byte
	target    []byte
}

func (p *partial) ready() bool {
	return len(p.pixelated) > 0 && len(p.known) > 0 && len(p.target) > 0
}

// assemble decodes the three members into a two-channel input (pixelated
// image scaled to [0,1], binary known mask) and a one-channel target.
func (p *partial) assemble(key string) (Sample, error) {
	pix, w, h, err := decodeGray(p.pixelated)
	if err != nil {
		return Sample{}, fmt.Errorf("sample %s: pixelated: %w", key, err)
	}
	known, kw, kh, err := decodeGray(p.known)
	if err != nil {
		return Sample{}, fmt.Errorf("sample %s: known: %w", key, err)
	}
	target, tw, th, err := decodeGray(p.target)
	if err != nil {
		return Sample{}, fmt.Errorf("sample %s: target: %w", key, err)
	}
	if kw != w || kh != h || tw != w || th != h {
		return Sample{}, fmt.Errorf("sample %s: member sizes differ (%dx%d, %dx%d, %dx%d)", key, w, h, kw, kh, tw, th)
	}

	plane := w * h
	input := make([]float32, 2*plane)
	for i := 0; i < plane; i++ {
		input[i] = pix[i] / 255
		if known[i] > 0 {
			input[plane+i] = 1
		}
		target[i] /= 255
	}
	return Sample{
		Key:      key,
		Input:    input,
		Target:   target,
		Channels: 2,
		Height:   h,
		Width:    w,
	}, nil
}

// decodeGray returns the luminance of each pixel in [0,255], row-major.
func decodeGray(raw []byte) ([]float32, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, err
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, 0, 0, errors.New("empty image")
	}
	out := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			out[y*width+x] = float32(g.Y)
		}
	}
	return out, width, height, nil
}
