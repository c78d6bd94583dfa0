package annotation

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

func HashFile(filepath string) (string, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// ETag derives a strong validator for a rendered variant of a file
func ETag(fileHash string, variant ...any) string {
	hasher := sha256.New()
	fmt.Fprint(hasher, fileHash)
	for _, v := range variant {
		fmt.Fprintf(hasher, "|%v", v)
	}
	return fmt.Sprintf(`"%x"`, hasher.Sum(nil)[:12])
}
