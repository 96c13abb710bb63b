// Package storage provides object storage for input media and analysis
// results, with pluggable backends.
//
// # Backends
//
//   - storage/s3: Amazon S3 and S3-compatible storage
//   - storage/local: local filesystem, for development
//   - storage/memory: process memory, for tests and dry runs
//
// Backends register themselves with RegisterFactory; import the ones you
// need for their side effect.
//
// # Configuration
//
//	storage:
//	  enabled: true
//	  provider: "s3"
//	  max_file_size: 2147483648
//	  s3:
//	    bucket: "media"
//	    region: "us-east-1"
package storage
