// Package nemo runs local NeMo inference scripts, currently the
// punctuation and capitalization restorer.
package nemo
