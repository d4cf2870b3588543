package security

import (
	"bytes"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// dangerousExtensions are executable or script extensions rejected on
// upload regardless of content.
var dangerousExtensions = map[string]struct{}{
	".exe": {}, ".dll": {}, ".so": {}, ".com": {}, ".scr": {}, ".msi": {},
	".bat": {}, ".cmd": {}, ".ps1": {}, ".vbs": {},
	".sh": {}, ".bash": {},
	".php": {}, ".phtml": {}, ".php3": {}, ".php4": {}, ".php5": {},
	".pl": {}, ".py": {}, ".rb": {}, ".cgi": {}, ".jsp": {},
	".jar": {},
}

// magicSignatures are binary headers rejected on upload.
var magicSignatures = []struct {
	rule string
	sig  []byte
}{
	{"windows executable upload", []byte("MZ")},
	{"elf executable upload", []byte{0x7f, 'E', 'L', 'F'}},
	{"zip archive upload", []byte("PK\x03\x04")},
}

// checkUpload validates an uploaded file's name, extension and leading
// magic bytes.
func checkUpload(fh *multipart.FileHeader, location string) *ValidationError {
	if verr := scanString(fh.Filename, location); verr != nil {
		return verr
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, bad := dangerousExtensions[ext]; bad {
		return &ValidationError{Rule: "dangerous file extension", Location: location}
	}

	f, err := fh.Open()
	if err != nil {
		return &ValidationError{Rule: "unreadable upload", Location: location}
	}
	defer f.Close()

	head := make([]byte, 4)
	n, _ := f.Read(head)
	head = head[:n]
	for _, m := range magicSignatures {
		if len(head) >= len(m.sig) && bytes.Equal(head[:len(m.sig)], m.sig) {
			return &ValidationError{Rule: m.rule, Location: location}
		}
	}
	return nil
}
