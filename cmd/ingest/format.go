package main

import (
	"strconv"

	"cloud.google.com/go/civil"
)

func civilDate(s string) (civil.Date, error) {
	return civil.ParseDate(s)
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func fmtInt(v *int64) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatInt(*v, 10)
}
