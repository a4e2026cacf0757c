// Package release turns the distributor's release spreadsheet into release
// documents for the remote releases table.
//
// Each spreadsheet row describes one track. Rows sharing a UPC (or, without
// one, a release name) are merged into a single Record whose tracks keep row
// order. Record.Payload fills in the table defaults and the uploaded media
// references once the files are on the storage endpoint.
package release
