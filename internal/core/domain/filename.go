package domain

import "strings"

const defaultBaseName = "image"

// DownloadFilename derives the saved name of an upscaled image:
// {base}_upscaled_{scale}.{ext}, splitting on the last dot. Names without a usable
// extension get the suffix appended to the whole name.
func DownloadFilename(original string, scale ScaleFactor) string {
	suffix := "_upscaled_" + scale.String()

	name := strings.TrimSpace(original)
	if name == "" {
		return defaultBaseName + suffix
	}

	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return strings.TrimSuffix(name, ".") + suffix
	}

	return name[:i] + suffix + name[i:]
}
