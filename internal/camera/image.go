package camera

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// ImageDescriptor is one entry of an image listing.
//
// A listing line looks like:
//
//	/DCIM/100OLYMP,P1010001.JPG,2592339,0,18242,40154
//
// i.e. directory, file name, size in bytes, attribute bits, and the FAT
// encoded date and time of the file.
type ImageDescriptor struct {
	Path      string
	Dir       string
	Name      string
	Size      uint64
	Attribute int
	Timestamp time.Time
	Reserved  bool
}

// BaseName returns the file name without extension, which is what
// RequestImage expects.
func (d ImageDescriptor) BaseName() string {
	return strings.TrimSuffix(d.Name, path.Ext(d.Name))
}

// ParseImageLine parses one listing line. reserved marks entries that came
// from the reserved-image listing.
func ParseImageLine(line string, reserved bool) (ImageDescriptor, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
		return ImageDescriptor{}, fmt.Errorf("invalid listing line %q: need at least directory and name", line)
	}

	img := ImageDescriptor{
		Dir:      fields[0],
		Name:     fields[1],
		Path:     strings.TrimSuffix(fields[0], "/") + "/" + fields[1],
		Reserved: reserved,
	}

	if len(fields) > 2 {
		size, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return ImageDescriptor{}, fmt.Errorf("invalid size in listing line %q: %w", line, err)
		}
		img.Size = size
	}

	if len(fields) > 3 {
		attr, err := strconv.Atoi(fields[3])
		if err != nil {
			return ImageDescriptor{}, fmt.Errorf("invalid attribute in listing line %q: %w", line, err)
		}
		img.Attribute = attr
	}

	if len(fields) > 5 {
		date, err := strconv.ParseUint(fields[4], 10, 16)
		if err != nil {
			return ImageDescriptor{}, fmt.Errorf("invalid date in listing line %q: %w", line, err)
		}
		tod, err := strconv.ParseUint(fields[5], 10, 16)
		if err != nil {
			return ImageDescriptor{}, fmt.Errorf("invalid time in listing line %q: %w", line, err)
		}
		img.Timestamp = fatTimestamp(uint16(date), uint16(tod))
	}

	return img, nil
}

// fatTimestamp decodes a FAT date/time pair. The camera clock has no zone,
// so the result is reported in UTC.
func fatTimestamp(date, tod uint16) time.Time {
	year := int(date>>9) + 1980
	month := time.Month((date >> 5) & 0x0F)
	day := int(date & 0x1F)

	hour := int(tod >> 11)
	minute := int((tod >> 5) & 0x3F)
	second := int(tod&0x1F) * 2

	return time.Date(year, month, day, hour, minute, second, 0, time.UTC)
}

// parseListing splits a CRLF listing body. The first line is a version
// header; blank lines are skipped. Lines that fail to parse are returned
// separately so the caller can report them without losing the rest.
func parseListing(body []byte, reserved bool) (header string, images []ImageDescriptor, bad []error) {
	lines := strings.Split(string(body), "\r\n")
	header = lines[0]

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		img, err := ParseImageLine(line, reserved)
		if err != nil {
			bad = append(bad, err)
			continue
		}
		images = append(images, img)
	}
	return header, images, bad
}
