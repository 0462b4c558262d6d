package image

import "context"

type EditParams struct {
	Image    []byte
	MIMEType string
	Prompt   string
}

// Editor transforms a source image according to a text prompt and returns the
// bytes of the resulting image.
type Editor interface {
	Edit(context.Context, EditParams) ([]byte, error)
}
