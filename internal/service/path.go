package service

import (
	"errors"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

// mountPointPattern matches a GVFS dav mount up to and including its prefix= segment,
// e.g. /run/user/1000/gvfs/dav:host=cloud.example.com,ssl=true,prefix=%2Fremote.php%2Fdav%2Ffiles%2Falice
var mountPointPattern = regexp.MustCompile(`^(.+?prefix=([^/]+))`)

var (
	errNoMountPrefix = errors.New("no prefix= mount marker found")
	errInvalidUTF8   = errors.New("decoded path is not valid UTF-8")
)

type PathService interface {
	Remote(localPath string) (string, error)
}

type pathService struct {
}

func newPathService() PathService {
	return &pathService{}
}

func (pathService) Remote(localPath string) (string, error) {
	return RemotePath(localPath)
}

// RemotePath translates a mounted local path into the path Nextcloud knows the file by.
// The prefix= segment is never decoded and only '/' is treated as a separator.
func RemotePath(localPath string) (string, error) {
	loc := mountPointPattern.FindStringIndex(localPath)
	if loc == nil {
		return "", &InvalidPathError{Path: localPath, Err: errNoMountPrefix}
	}

	remote, err := url.PathUnescape(localPath[loc[1]:])
	if err != nil {
		return "", &InvalidPathError{Path: localPath, Err: err}
	}
	if !utf8.ValidString(remote) {
		return "", &InvalidPathError{Path: localPath, Err: errInvalidUTF8}
	}

	if !strings.HasPrefix(remote, "/") {
		remote = "/" + remote
	}
	return remote, nil
}

// HasExtension reports whether the last element of p carries a file extension.
// A leading dot alone (".bashrc") is not an extension.
func HasExtension(p string) bool {
	base := path.Base(p)
	ext := path.Ext(base)
	return ext != "" && ext != base
}
