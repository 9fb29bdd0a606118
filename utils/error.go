package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

var ErrorScanInProgress = errors.New("a fraud scan is already running")
