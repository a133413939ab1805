package ocr

import (
	"image"
	"log"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

const (
	digitWhitelist = "0123456789 "
	fullWhitelist  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyzn°/- "
)

// runCardOCRPasses executes the multi-pass OCR strategy over one carton
// sub-image. Returns the variant texts, word annotations from the cleanest
// pass, and the bounds of the preprocessed image the annotations refer to.
func runCardOCRPasses(path string) (map[string]string, []TokenAnnotation, image.Rectangle, error) {
	out := map[string]string{}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, nil, image.Rectangle{}, err
	}
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < 600 {
		gray = imaging.Resize(gray, 0, 900, imaging.Lanczos)
	}
	bin := binarize(gray, 210)
	adv := adaptiveThreshold(gray, 15, 7)
	adv = dilate(adv, 1)
	bounds := bin.Bounds()

	tmpFile, err := os.CreateTemp("", "carton-base-*.png")
	tmp := path
	if err == nil {
		tmp = tmpFile.Name()
		_ = tmpFile.Close()
		_ = imaging.Save(bin, tmp)
		defer os.Remove(tmp)
	}

	baseClient := gosseract.NewClient()
	defer baseClient.Close()
	_ = baseClient.SetLanguage("fra")
	_ = baseClient.SetWhitelist(digitWhitelist)
	_ = baseClient.SetPageSegMode(gosseract.PSM_SPARSE_TEXT)
	baseClient.SetImage(tmp)
	text, _ := baseClient.Text()
	text = normalizeOCRText(text)
	out["text"] = text

	// Word annotations from the same binarized pass; geometry drives the
	// positioned grid build when enough cells are recognized.
	var annotations []TokenAnnotation
	if boxes, err := baseClient.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		for _, b := range boxes {
			word := strings.TrimSpace(b.Word)
			if word == "" {
				continue
			}
			annotations = append(annotations, TokenAnnotation{Text: word, Box: b.Box})
		}
	}

	// Full-charset pass on the original image catches the serial number and
	// watermark strings the digit whitelist suppresses.
	origClient := gosseract.NewClient()
	defer origClient.Close()
	_ = origClient.SetLanguage("fra")
	_ = origClient.SetWhitelist(fullWhitelist)
	origClient.SetImage(path)
	textOrig, _ := origClient.Text()
	textOrig = normalizeOCRText(textOrig)
	out["textOrig"] = textOrig

	variants := []string{text, textOrig}

	// Advanced preprocessed pass recovers faint print the global threshold loses.
	if tmpAdv, _ := os.CreateTemp("", "carton-adv-*.png"); tmpAdv != nil {
		_ = tmpAdv.Close()
		_ = imaging.Save(adv, tmpAdv.Name())
		cl := gosseract.NewClient()
		_ = cl.SetLanguage("fra")
		_ = cl.SetWhitelist(digitWhitelist)
		_ = cl.SetPageSegMode(gosseract.PSM_SPARSE_TEXT)
		cl.SetImage(tmpAdv.Name())
		if t, er := cl.Text(); er == nil {
			variants = append(variants, normalizeOCRText(t))
		}
		cl.Close()
		_ = os.Remove(tmpAdv.Name())
	}

	// Multi-PSM passes over the binarized image.
	psmModes := []gosseract.PageSegMode{gosseract.PSM_SINGLE_BLOCK, gosseract.PSM_SPARSE_TEXT_OSD}
	for _, mode := range psmModes {
		cl := gosseract.NewClient()
		_ = cl.SetLanguage("fra")
		_ = cl.SetWhitelist(digitWhitelist)
		_ = cl.SetPageSegMode(mode)
		cl.SetImage(tmp)
		if t, er := cl.Text(); er == nil {
			variants = append(variants, normalizeOCRText(t))
		}
		cl.Close()
	}

	aggregate := strings.Join(variants, " ")
	out["aggregate"] = aggregate
	log.Printf("carton OCR passes variants=%d annotations=%d length=%d", len(variants), len(annotations), len(aggregate))
	return out, annotations, bounds, nil
}

// SplitPlancheImage crops a planche photo into its 12 carton sub-images
// (4 rows of 3) and saves them as temp files. The caller removes the files
// when done with them.
func SplitPlancheImage(path string) ([]string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	cellW := w / 3
	cellH := h / 4

	var paths []string
	for row := 0; row < 4; row++ {
		for col := 0; col < 3; col++ {
			x0 := col * cellW
			y0 := row * cellH
			x1 := x0 + cellW
			y1 := y0 + cellH
			if col == 2 {
				x1 = w
			}
			if row == 3 {
				y1 = h
			}
			crop := imaging.Crop(img, image.Rect(x0, y0, x1, y1))
			f, err := os.CreateTemp("", "carton-cell-*.png")
			if err != nil {
				return paths, err
			}
			_ = f.Close()
			if err := imaging.Save(crop, f.Name()); err != nil {
				_ = os.Remove(f.Name())
				return paths, err
			}
			paths = append(paths, f.Name())
		}
	}
	return paths, nil
}
