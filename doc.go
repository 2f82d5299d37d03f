// Package gocfb reads Compound File Binary files, also known as OLE2 or structured storage.
// Old Microsoft Office documents (.doc, .xls, .ppt), Outlook .msg files and many installers
// use this format to store several streams inside of one file.
//
// Parse reads the header, the allocation tables and the directory of a file once.
// The content of a stream is only read when it is resolved:
//  c, err := gocfb.Parse(bytes.NewReader(data))
//  if err != nil {
//  	return err
//  }
//  summary, err := c.Open("\x05SummaryInformation")
//
// Damaged files can be read as far as possible using ParseSkipChecks.
// New wraps a Container into a read-only afero.Fs and NewGoFS into an io/fs.FS.
package gocfb

//go:generate go run ./cmd/generate
