// Package library files completed downloads into the media library.
//
// Files are content addressed: each lands at
// <library_dir>/<platform folder>/<sha256><ext> and identical content is
// stored once. Every stored file gets a catalog entry whose id is the job's
// media id. Creating a platform folder for the first time records a
// libraryCreated notification.
package library
