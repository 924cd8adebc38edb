// Package normalisers turns files into plain text before chunking.
// Each subpackage handles one format; the Registry selects a normaliser by
// file extension.
package normalisers
