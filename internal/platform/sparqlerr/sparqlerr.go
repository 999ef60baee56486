// Package sparqlerr bridges Triple-Store Gateway errors into
// [apperr.MetadataRead] / [apperr.MetadataWrite], the same way
// internal/platform/dberr bridges relational errors into [apperr.Storage].
package sparqlerr

import "github.com/anchorgraph/corestack/internal/platform/apperr"

// WrapRead wraps a failed SPARQL query/ASK into a MetadataReadError.
func WrapRead(err error, action string) error {
	if err == nil {
		return nil
	}
	return apperr.MetadataRead(err)
}

// WrapWrite wraps a rejected SPARQL update into a MetadataWriteError.
func WrapWrite(err error, action string) error {
	if err == nil {
		return nil
	}
	return apperr.MetadataWrite(err)
}
