package client

import (
	"testing"

	"github.com/aulahub/console/models"
	"github.com/stretchr/testify/assert"
)

func TestEncodeAttachments(t *testing.T) {
	assert.Equal(t, "", EncodeAttachments(nil))
	assert.Equal(t, "", EncodeAttachments([]string{}))
	assert.Equal(t, "a.pdf", EncodeAttachments([]string{"a.pdf"}))
	assert.Equal(t, "a.pdf|||b.pdf", EncodeAttachments([]string{"a.pdf", "b.pdf"}))
	assert.Equal(t, "a.pdf|||b.pdf|||c.pdf", EncodeAttachments([]string{"a.pdf", "b.pdf", "c.pdf"}))
}

func TestDecodeAttachments(t *testing.T) {
	assert.Empty(t, DecodeAttachments(""))
	assert.Equal(t, []string{"a.pdf"}, DecodeAttachments("a.pdf"))
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, DecodeAttachments("a.pdf|||b.pdf"))
}

func TestAttachmentsRoundTrip(t *testing.T) {
	cases := [][]string{
		nil,
		{"https://cdn/x.pdf"},
		{"https://cdn/x.pdf", "https://cdn/y.pdf"},
		{"a", "b", "c", "d"},
	}
	for _, urls := range cases {
		decoded := DecodeAttachments(EncodeAttachments(urls))
		if len(urls) == 0 {
			assert.Empty(t, decoded)
			continue
		}
		assert.Equal(t, urls, decoded)
	}
}

func TestModuleDTOUsesLegacyEncoding(t *testing.T) {
	fields := models.ModuleFields{
		Titulo:     "Unidad 1",
		URLArchivo: []string{"a.pdf", "b.pdf"},
	}
	dto := moduleToDTO("m1", "s1", fields)
	assert.Equal(t, "a.pdf|||b.pdf", dto.URLArchivo)

	back := moduleFromDTO(dto)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, back.URLArchivo)
}
