// Package html normalises HTML pages to plain text. Scripts, styles and the
// document head are dropped and entities are decoded.
package html
