package contextagg

import (
	"path"
	"regexp"
	"strings"
)

var (
	// -1024x768, -scaled, -e1712345678 and -rotated are added by resizers and editors.
	derivedSuffix = regexp.MustCompile(`(?i)-(\d+x\d+|scaled|rotated|e\d{10,})$`)
	// default names given by cameras and phones carry no meaning
	cameraName = regexp.MustCompile(`(?i)^(img|dsc[nf]?|pxl|mvimg|gopr|dji|screenshot|photo|image|wp)[\s_-]*\d+([\s_-]+\d+)*([\s_-]+\w{1,3})?$`)
	separators = regexp.MustCompile(`[\s_.\-+]+`)
)

// FilenameHint turns a file name into a short human-readable phrase.
// Camera default names and purely numeric names yield "".
func FilenameHint(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	if ext := path.Ext(name); ext != "" && len(ext) <= 5 {
		name = strings.TrimSuffix(name, ext)
	}
	for {
		stripped := derivedSuffix.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = stripped
	}
	if cameraName.MatchString(name) {
		return ""
	}

	hint := strings.TrimSpace(separators.ReplaceAllString(name, " "))
	if strings.Trim(hint, "0123456789 ") == "" {
		return ""
	}
	return hint
}
