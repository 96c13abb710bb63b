// Package transcription defines the speech-to-text provider contract used by
// the transcription job.
//
// # Backends
//
//   - transcription/whisper: faster-whisper HTTP sidecar
package transcription
