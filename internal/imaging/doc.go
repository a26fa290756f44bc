// Package imaging provides the image plumbing used by the handwriting
// analyzer: reading raw uploads, decoding them in stored pixel order,
// cropping letter glyphs, turning glyphs into classifier tensors, and
// measuring ink intensity.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner.
// For regions, the min point is inclusive and the max point is exclusive,
// matching image.Rectangle.
//
// # Raw Bytes and Decoded Images
//
// Uploads are kept as RawImage values so the exact bytes can be forwarded to
// an OCR service while the same bytes are decoded locally for cropping and
// intensity measurement. Decoding is deferred until a caller needs pixels.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. The remaining functions are
// stateless and may be called concurrently on different images.
//
// # Error Handling
//
// Functions return wrapped errors for:
//   - Files that cannot be read or are not a supported image format
//   - Crop rectangles with non-positive width or height
//   - Empty images passed to Preprocess or MeanIntensity
//   - Encoding errors during PNG output
package imaging
