package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	nameFmt0 = "%s-%s-vs-%s.png"
	nameFmt1 = "diffimage %s.png"
	nameFmt2 = "diffimage %s vs. %s.png"
)

// PlatformCmds maps generic file commands to the current platform's shell
var PlatformCmds = platformCmds(runtime.GOOS)

func platformCmds(goos string) map[string]string {
	if goos == "windows" {
		return map[string]string{"cp": "copy", "mv": "move", "rm": "del"}
	}
	return map[string]string{"cp": "cp", "mv": "mv", "rm": "rm"}
}

// SafePathParam quotes path for use as a shell argument when it contains a
// quote, space or double quote
func SafePathParam(path string) string {
	if strings.Contains(path, "'") {
		return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
	}
	if strings.ContainsAny(path, " \"") {
		return "'" + path + "'"
	}
	return path
}

// mountParents lists the directories removable and network drives are
// typically mounted under
func mountParents() []string {
	parents := []string{"/mnt"}
	if home, err := os.UserHomeDir(); err == nil {
		parents = append(parents, "/run/media/"+filepath.Base(home))
	}
	// custom fstab parents, then macOS
	return append(parents, "/media", "/amnt", "/auto", "/Volumes")
}

// DriveName returns the mount directory name of the drive containing path
func DriveName(path string) (string, bool) {
	for _, parent := range mountParents() {
		if !strings.HasPrefix(path, parent+"/") {
			continue
		}
		rel := path[len(parent)+1:]
		name, _, _ := strings.Cut(rel, "/")
		if name == "" {
			return "", false
		}
		return name, true
	}
	return "", false
}

// FirstDifferentSubdirs compares two paths from the end and returns the
// first pair of components that differ. ok is false when none differ.
func FirstDifferentSubdirs(path1, path2 string) (string, string, bool) {
	parts1 := strings.Split(path1, string(filepath.Separator))
	parts2 := strings.Split(path2, string(filepath.Separator))
	for i, j := len(parts1)-1, len(parts2)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if parts1[i] != parts2[j] {
			return parts1[i], parts2[j], true
		}
	}
	return "", "", false
}

// splitPath splits off the last path component. Unlike filepath.Split the
// directory part keeps no trailing separator unless it is the root.
func splitPath(p string) (string, string) {
	i := strings.LastIndex(p, string(filepath.Separator))
	if i < 0 {
		return "", p
	}
	dir, file := p[:i+1], p[i+1:]
	if trimmed := strings.TrimRight(dir, string(filepath.Separator)); trimmed != "" {
		dir = trimmed
	}
	return dir, file
}

// GenerateDiffName builds a descriptive file name for the diff of two
// images. When both have the same file name, the drive or the nearest
// differing parent directory tells them apart.
func GenerateDiffName(basePath, headPath, fileName string) string {
	if fileName == "" {
		if info, err := os.Stat(basePath); err == nil && info.Mode().IsRegular() {
			fileName = filepath.Base(basePath)
		}
	}
	if fileName == "" {
		fileName = "diffimage"
	}
	_, baseName := splitPath(basePath)
	_, headName := splitPath(headPath)
	diffName := fmt.Sprintf(nameFmt0, fileName, baseName, headName)
	if baseName != headName {
		return diffName
	}

	baseDrive, hasBaseDrive := DriveName(basePath)
	headDrive, hasHeadDrive := DriveName(headPath)
	switch {
	case hasBaseDrive && hasHeadDrive:
		return fmt.Sprintf(nameFmt2, baseName+" (in "+baseDrive, "in "+headDrive+")")
	case hasBaseDrive:
		return fmt.Sprintf(nameFmt1, baseName+" (base in "+baseDrive+")")
	case hasHeadDrive:
		return fmt.Sprintf(nameFmt1, baseName+" (vs one in "+headDrive+")")
	}

	baseL, baseR := splitPath(basePath)
	headL, headR := splitPath(headPath)
	for {
		switch {
		case baseL == "" && headL == "":
			return fmt.Sprintf(nameFmt2, "(both further up)", headR)
		case baseR == "" && headR == "":
			return diffName
		case baseR == "":
			return fmt.Sprintf(nameFmt1, baseName+" (base further up vs in "+headR+")")
		case headR == "":
			return fmt.Sprintf(nameFmt1, baseName+" (vs one further up)")
		case baseR != headR:
			return fmt.Sprintf(nameFmt0, fileName, baseR, headR)
		}
		baseL, baseR = splitPath(baseL)
		headL, headR = splitPath(headL)
	}
}
