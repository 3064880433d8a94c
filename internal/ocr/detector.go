package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/page-compositor/internal/detection"
)

// DefaultMinConfidence is the lowest word confidence (0.0 to 1.0) a raw box
// needs to be passed on to consolidation.
const DefaultMinConfidence = 0.20

// Word is a single Tesseract word box.
type Word struct {
	// Text is the recognized word. It is informational only; the compositing
	// engine consumes the box, not the text.
	Text string `json:"text"`

	// Confidence is Tesseract's confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Box is the word's bounding box in page coordinates.
	Box detection.BoundingBox `json:"box"`
}

// Detector produces raw text boxes for a page using Tesseract word-level
// iteration.
//
// A Detector holds no Tesseract state between calls; each call creates and
// closes its own client, so one Detector may be shared across goroutines.
type Detector struct {
	// Language is the Tesseract language code (e.g. "eng", "jpn").
	Language string

	// MinConfidence filters out words scored below it (0.0 to 1.0).
	MinConfidence float64

	// TessdataPrefix overrides the directory holding *.traineddata files.
	// Empty uses Tesseract's compiled-in default or TESSDATA_PREFIX.
	TessdataPrefix string
}

// NewDetector creates a detector for language with the given confidence floor.
// A negative minConfidence selects DefaultMinConfidence.
func NewDetector(language string, minConfidence float64) *Detector {
	if language == "" {
		language = "eng"
	}
	if minConfidence < 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Detector{Language: language, MinConfidence: minConfidence}
}

// DetectFile runs word detection on the image at path.
func (d *Detector) DetectFile(path string) ([]Word, error) {
	return d.run(func(c *gosseract.Client) error {
		return c.SetImage(path)
	})
}

// Detect runs word detection on an in-memory page.
//
// The page is PNG-encoded and handed to Tesseract from memory; no temporary
// file is written.
func (d *Detector) Detect(img image.Image) ([]Word, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}
	words, err := d.run(func(c *gosseract.Client) error {
		return c.SetImageFromBytes(buf.Bytes())
	})
	if err != nil {
		return nil, err
	}
	// Tesseract reports boxes relative to the encoded image, which starts at 0,0.
	if off := img.Bounds().Min; off != (image.Point{}) {
		for i := range words {
			words[i].Box = detection.FromRect(words[i].Box.Rect().Add(off))
		}
	}
	return words, nil
}

// Boxes returns the bounding boxes of words in detection order.
func Boxes(words []Word) []detection.BoundingBox {
	boxes := make([]detection.BoundingBox, 0, len(words))
	for _, w := range words {
		boxes = append(boxes, w.Box)
	}
	return boxes
}

func (d *Detector) run(setImage func(*gosseract.Client) error) ([]Word, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if d.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(d.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(d.Language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := setImage(client); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get word boxes: %w", err)
	}
	return filterWords(boxes, d.MinConfidence), nil
}

// filterWords converts Tesseract boxes to words, dropping blank words,
// degenerate boxes, and words below minConfidence.
func filterWords(boxes []gosseract.BoundingBox, minConfidence float64) []Word {
	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		confidence := box.Confidence / 100.0
		if confidence < minConfidence {
			continue
		}
		b := detection.BoundingBox{X1: box.Box.Min.X, Y1: box.Box.Min.Y, X2: box.Box.Max.X, Y2: box.Box.Max.Y}
		if !b.Valid() {
			continue
		}
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		words = append(words, Word{Text: box.Word, Confidence: confidence, Box: b})
	}
	return words
}

// Info describes the OCR subsystem for status reporting.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend"`
}

// GetInfo reports the linked Tesseract version.
func GetInfo() Info {
	client := gosseract.NewClient()
	defer client.Close()
	version := client.Version()
	return Info{
		Available: version != "",
		Version:   version,
		Backend:   "gosseract",
	}
}
