package main

import (
	"errors"
	"time"
)

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

func cmdError(msg string) error {
	return errors.New(msg)
}
