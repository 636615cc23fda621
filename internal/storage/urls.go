package storage

import "strings"

// URLs turns stored filenames into public links under one base URL.
type URLs struct {
	base string
}

func NewURLs(base string) *URLs {
	return &URLs{base: strings.TrimRight(base, "/")}
}

func (u *URLs) Product(name string) string {
	return u.join(DirProducts, name)
}

func (u *URLs) Avatar(name string) string {
	return u.join(DirAvatars, name)
}

// join leaves empty names and absolute URLs untouched.
func (u *URLs) join(dir, name string) string {
	if name == "" || strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return name
	}
	return u.base + "/" + dir + "/" + name
}
