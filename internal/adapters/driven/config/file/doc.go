// Package file provides the TOML config store backing ~/.lexrag/config.toml.
package file
