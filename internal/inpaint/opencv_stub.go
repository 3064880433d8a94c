//go:build !opencv

package inpaint

import "errors"

var errOpenCVUnavailable = errors.New("opencv engine not compiled in (build with -tags opencv)")

func newOpenCVBackend(string, int) (Backend, error) {
	return nil, errOpenCVUnavailable
}
