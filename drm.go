package endnotefix

import (
	"archive/zip"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

const (
	encryptionFilePath = "META-INF/encryption.xml"

	// sinf.xml is only present in Apple FairPlay protected books.
	sinfFilePath = "META-INF/sinf.xml"
)

// Font obfuscation only scrambles embedded fonts; content documents stay
// readable and can be rewritten.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true,
	"http://ns.adobe.com/pdf/enc#RC":     true,
}

// encryptedMembers inspects META-INF/encryption.xml and returns the archive
// members that are encrypted with anything other than font obfuscation.
// A sinf.xml or an unreadable encryption.xml yields ErrDRMProtected directly.
// The second result reports whether font obfuscation was seen.
func encryptedMembers(zr *zip.Reader) ([]string, bool, error) {
	if findFileInsensitive(zr, sinfFilePath) != nil {
		return nil, false, ErrDRMProtected
	}

	f := findFileInsensitive(zr, encryptionFilePath)
	if f == nil {
		return nil, false, nil
	}

	data, err := readZipFile(f)
	if err != nil {
		return nil, false, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(stripBOM(data)); err != nil {
		return nil, false, ErrDRMProtected
	}

	var (
		members []string
		fonts   bool
	)
	for _, ed := range doc.FindElements("//EncryptedData") {
		algo := ""
		if m := ed.FindElement("EncryptionMethod"); m != nil {
			algo = m.SelectAttrValue("Algorithm", "")
		}
		if fontObfuscationAlgorithms[algo] {
			fonts = true
			continue
		}
		uri := ""
		if ref := ed.FindElement(".//CipherReference"); ref != nil {
			uri = ref.SelectAttrValue("URI", "")
		}
		members = append(members, uri)
	}
	return members, fonts, nil
}

// checkDRM returns ErrDRMProtected when any member of the archive is encrypted
// beyond font obfuscation.
func checkDRM(zr *zip.Reader) (fontObfuscation bool, err error) {
	members, fonts, err := encryptedMembers(zr)
	if err != nil {
		return false, err
	}
	if len(members) > 0 {
		return false, fmt.Errorf("%w: encrypted members %s", ErrDRMProtected, strings.Join(members, ", "))
	}
	return fonts, nil
}
