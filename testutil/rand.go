package testutil

import (
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// ContainerName returns prefix with a random suffix. Docker allows only one
// container per name, so a leftover container from an aborted run must not
// block the next one.
func ContainerName(prefix string) string {
	return prefix + "-" + strings.ToLower(gofakeit.LetterN(6))
}
