package tui

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"ragqa/internal/domain"
)

// ReadLine reads one line from r as the question. Blank input yields
// domain.ErrEmptyQuery.
func ReadLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	q := strings.TrimSpace(line)
	if q == "" {
		return "", domain.ErrEmptyQuery
	}
	return q, nil
}
