package moderation

import (
	"path/filepath"
	"strings"
)

// Tag is a content classification label assigned to a message's
// attachments and embeds.
type Tag string

const (
	TagImage      Tag = "image"
	TagGif        Tag = "gif"
	TagVideo      Tag = "video"
	TagExecutable Tag = "executable"
	TagFile       Tag = "file"
	TagEmbedImage Tag = "embed_image"
)

// Tags lists every valid tag, in no particular order.
var Tags = []Tag{TagImage, TagGif, TagVideo, TagExecutable, TagFile, TagEmbedImage}

func ValidTag(t Tag) bool {
	for _, v := range Tags {
		if t == v {
			return true
		}
	}
	return false
}

// canonical maps embed_image onto image for matching against a banned set.
func (t Tag) canonical() Tag {
	if t == TagEmbedImage {
		return TagImage
	}
	return t
}

type Attachment struct {
	Filename string
	Size     int
}

type Embed struct {
	HasImage     bool
	HasThumbnail bool
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true,
	".bmp": true, ".tiff": true, ".svg": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".webm": true, ".flv": true, ".wmv": true,
}

var executableExts = map[string]bool{
	".exe": true, ".msi": true, ".bat": true, ".cmd": true,
	".sh": true, ".scr": true, ".com": true, ".jar": true,
}

func classifyFilename(name string) Tag {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExts[ext]:
		return TagImage
	case ext == ".gif":
		return TagGif
	case videoExts[ext]:
		return TagVideo
	case executableExts[ext]:
		return TagExecutable
	}
	return TagFile
}

// Classify maps a message's attachments and embeds to an ordered set of
// tags. Each attachment contributes exactly one tag; tags are deduplicated
// in first-seen order. Any embed carrying an image or thumbnail appends
// embed_image. Classify is deterministic and has no side effects.
func Classify(attachments []Attachment, embeds []Embed) []Tag {
	var tags []Tag
	seen := make(map[Tag]bool)

	add := func(t Tag) {
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}

	for _, a := range attachments {
		add(classifyFilename(a.Filename))
	}

	for _, e := range embeds {
		if e.HasImage || e.HasThumbnail {
			add(TagEmbedImage)
			break
		}
	}

	return tags
}

// firstBanned returns the first classified tag that matches the banned set,
// with embed_image aliasing to image on both sides.
func firstBanned(tags, banned []Tag) (Tag, bool) {
	bannedSet := make(map[Tag]bool, len(banned))
	for _, b := range banned {
		bannedSet[b.canonical()] = true
	}
	for _, t := range tags {
		if bannedSet[t.canonical()] {
			return t, true
		}
	}
	return "", false
}
