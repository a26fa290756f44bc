// Package glyph finds and cuts out the handwritten letters the classifier bank
// inspects.
//
// Locate scans an OCR transcription for the first occurrence of each target
// letter and reports the bounding box of the word it was found in. Extract
// crops those boxes from the original image.
package glyph
