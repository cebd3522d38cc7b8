package voucher

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/spec-kit/loyalty-service/internal/domain"
)

// ErrUnsafeFileName is returned for codes that would not name a plain file
// inside the output directory.
var ErrUnsafeFileName = errors.New("voucher code does not form a plain file name")

// Artifact is a rendered voucher ready to be attached or linked.
type Artifact struct {
	FileName string
	Path     string
	URL      string
	Content  []byte
}

// Renderer produces the voucher artifact for a customer.
type Renderer interface {
	Render(name string, code domain.VoucherCode) (*Artifact, error)
}

// ImageRenderer stamps the customer name and code onto a base voucher image
// and stores the result as a JPEG under a publicly served directory.
type ImageRenderer struct {
	baseImagePath string
	outputDir     string
	publicBaseURL string
	logger        *zap.Logger
}

// NewImageRenderer constructs the renderer.
func NewImageRenderer(baseImagePath, outputDir, publicBaseURL string, logger *zap.Logger) *ImageRenderer {
	return &ImageRenderer{
		baseImagePath: baseImagePath,
		outputDir:     outputDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.Named("voucher-renderer"),
	}
}

// FileName is the artifact file name for code.
func FileName(code domain.VoucherCode) string {
	return fmt.Sprintf("voucher_%s.jpg", code)
}

// URL returns the public address of the artifact for code.
func (r *ImageRenderer) URL(code domain.VoucherCode) string {
	return r.publicBaseURL + "/" + FileName(code)
}

// Render implements Renderer.
func (r *ImageRenderer) Render(name string, code domain.VoucherCode) (*Artifact, error) {
	fileName := FileName(code)
	if filepath.Base(fileName) != fileName || strings.ContainsAny(fileName, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrUnsafeFileName, code)
	}

	canvas, err := r.canvas()
	if err != nil {
		return nil, err
	}

	bounds := canvas.Bounds()
	drawText(canvas, name, bounds.Min.X+bounds.Dx()*40/100, bounds.Min.Y+bounds.Dy()*30/100)
	drawText(canvas, code.String(), bounds.Min.X+bounds.Dx()*45/100, bounds.Min.Y+bounds.Dy()*425/1000)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 70}); err != nil {
		return nil, fmt.Errorf("encode voucher image: %w", err)
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create voucher dir: %w", err)
	}
	path := filepath.Join(r.outputDir, fileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write voucher image: %w", err)
	}

	r.logger.Info("voucher rendered", zap.String("voucher_code", code.String()), zap.String("path", path))
	return &Artifact{
		FileName: fileName,
		Path:     path,
		URL:      r.URL(code),
		Content:  buf.Bytes(),
	}, nil
}

// canvas loads the base image, falling back to a blank card when none is configured.
func (r *ImageRenderer) canvas() (*image.RGBA, error) {
	if r.baseImagePath == "" {
		img := image.NewRGBA(image.Rect(0, 0, 600, 300))
		draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
		return img, nil
	}

	f, err := os.Open(r.baseImagePath)
	if err != nil {
		return nil, fmt.Errorf("open voucher base image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode voucher base image: %w", err)
	}
	img := image.NewRGBA(src.Bounds())
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	return img, nil
}

func drawText(dst draw.Image, text string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
