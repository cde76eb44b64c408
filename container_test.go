package endnotefix

import (
	"errors"
	"strings"
	"testing"
)

func TestLocateOPF(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		want    string
		wantErr error
	}{
		{
			name:  "container.xml",
			files: map[string]string{containerPath: testContainerXML, "OEBPS/content.opf": "<package/>"},
			want:  "OEBPS/content.opf",
		},
		{
			name: "prefers OPF media type",
			files: map[string]string{containerPath: `<container><rootfiles>
<rootfile full-path="other.pdf" media-type="application/pdf"/>
<rootfile full-path="book.opf" media-type="application/oebps-package+xml"/>
</rootfiles></container>`},
			want: "book.opf",
		},
		{
			name: "falls back to first rootfile",
			files: map[string]string{containerPath: `<container><rootfiles>
<rootfile full-path=" " media-type=""/>
<rootfile full-path="a/b.opf"/>
</rootfiles></container>`},
			want: "a/b.opf",
		},
		{
			name:  "case-insensitive container lookup",
			files: map[string]string{"meta-inf/Container.xml": testContainerXML},
			want:  "OEBPS/content.opf",
		},
		{
			name:  "scan when container missing",
			files: map[string]string{"mimetype": expectedMimetype, "Content/Book.OPF": "<package/>"},
			want:  "Content/Book.OPF",
		},
		{
			name:    "no opf anywhere",
			files:   map[string]string{"mimetype": expectedMimetype},
			wantErr: ErrInvalidArchive,
		},
		{
			name:    "no rootfiles",
			files:   map[string]string{containerPath: `<container><rootfiles/></container>`},
			wantErr: ErrInvalidArchive,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := locateOPF(buildTestZip(t, tt.files))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("locateOPF() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("locateOPF() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocateOPF_MalformedContainer(t *testing.T) {
	_, err := locateOPF(buildTestZip(t, map[string]string{containerPath: `<container><rootfiles>`}))
	if err == nil || !strings.Contains(err.Error(), "parse container.xml") {
		t.Errorf("err = %v, want parse error", err)
	}
}

func TestInspectArchive(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  []string
	}{
		{"valid", testBook(), nil},
		{
			name:  "wrong mimetype",
			files: map[string]string{"mimetype": "application/zip", containerPath: testContainerXML, "OEBPS/content.opf": "<package/>"},
			want:  []string{"unexpected mimetype"},
		},
		{
			name:  "mimetype not first",
			files: map[string]string{containerPath: testContainerXML, "OEBPS/content.opf": "<package/>"},
			want:  []string{`first ZIP entry is not "mimetype"`},
		},
		{
			name:  "package document missing",
			files: map[string]string{"mimetype": expectedMimetype, containerPath: testContainerXML},
			want:  []string{"listed but missing"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inspectArchive(buildTestZip(t, tt.files))
			if len(got) != len(tt.want) {
				t.Fatalf("warnings = %q, want %d matching %q", got, len(tt.want), tt.want)
			}
			for i := range tt.want {
				if !strings.Contains(got[i], tt.want[i]) {
					t.Errorf("warning[%d] = %q, want it to contain %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestInspectArchive_Empty(t *testing.T) {
	got := inspectArchive(buildTestZip(t, map[string]string{}))
	if len(got) != 2 {
		t.Fatalf("warnings = %q, want mimetype and OPF warnings", got)
	}
	if !strings.Contains(got[0], "empty ZIP archive") {
		t.Errorf("warning[0] = %q", got[0])
	}
}
