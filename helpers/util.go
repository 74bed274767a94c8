package helpers

import (
	"errors"
	"strings"
)

func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// LotID extracts the numeric lot identifier from a listing URL such as
// https://www.catawiki.com/en/l/98998534-six-bottles-of-burgundy.
func LotID(link string) (string, error) {
	baseLink := strings.Split(link, "?")[0]
	slug, err := GetSplitPart(baseLink, "/l/", 1)
	if err != nil {
		return "", err
	}
	id := strings.Split(slug, "-")[0]
	if id == "" {
		return "", errors.New("no lot id in url")
	}
	return id, nil
}
