package main

import "errors"

const (
	exitOK        = 0
	exitNoWebP    = 1
	exitBadSource = 2
	exitUsage     = 2
)

var (
	errNoImages     = errors.New("no image files found")
	errNotDirectory = errors.New("directory does not exist or is not a directory")
)
