package domain

import "errors"

var (
	ErrRateLimited   = errors.New("rate limited")
	ErrUnmappedToken = errors.New("token not mapped for network")
	ErrPairNotListed = errors.New("pair not listed")
	ErrNoRoute       = errors.New("no route")
	ErrEmptyPairList = errors.New("empty candidate pair list")
	ErrNotFound      = errors.New("not found")
)
