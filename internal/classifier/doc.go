// Package classifier maps preprocessed glyph tensors to discrete handwriting
// feature labels.
//
// Seven classifiers are defined by Specs. Each reads the tensor of one target
// letter and returns a probability vector over a fixed label set; the label
// is chosen by Argmax. A Bank runs every classifier whose letter is available
// and isolates failures so one broken model never prevents the others from
// running.
//
// Three backends implement Classifier:
//   - Softmax: a linear layer plus softmax loaded from a JSON weight file.
//   - Remote: a model hosted by TensorFlow Serving, called over its REST API.
//   - Fixed: a deterministic vector, for tests and dry runs.
//
// Classifiers are loaded once at startup and are read-only afterwards, so a
// Bank is safe for concurrent use.
package classifier
