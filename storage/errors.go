package storage

import "errors"

var (
	ErrGet    = errors.New("unable to retrieve data from cache storage")
	ErrSet    = errors.New("unable to store data in cache storage")
	ErrDelete = errors.New("unable to delete data from cache storage")
	ErrPurge  = errors.New("unable to purge expired data from cache storage")
)
