// Package filex contains small filesystem helpers shared by the
// repackaging and upload stages.
package filex

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// EnsureSubdDir creates dirName under base (the current working directory
// when base is empty) and returns its absolute path.
func EnsureSubdDir(base, dirName string) (string, error) {
	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		base = cwd
	}

	dir := filepath.Join(base, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// CopyFile copies src to dst, creating or truncating dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	return out.Close()
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MD5 returns the upper-case hex and the base64 form of the file's MD5
// digest.
func MD5(path string) (hexSum string, b64Sum string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", "", err
	}
	sum := h.Sum(nil)
	return strings.ToUpper(hex.EncodeToString(sum)), base64.StdEncoding.EncodeToString(sum), nil
}

// SanitizeName turns a display name into something safe to use as a single
// path element.
func SanitizeName(name string) string {
	r := strings.NewReplacer("/", "_", `\`, "_", " ", "_", ":", "_")
	s := r.Replace(strings.TrimSpace(name))
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
