package protocol

// This package implements the value model and codec for the RESP wire
// format that redsail speaks to servers.
//
// Every frame on the wire is one encoded Value. The first byte of a frame
// is a tag that fully determines how the rest of the frame is parsed
//
// - `+` - simple string, the payload is one `\r\n` terminated line
// - `-` - error, same shape as a simple string
// - `:` - integer, a base-10 signed number on one line
// - `$` - bulk string, a length line followed by exactly that many payload
//         bytes and a trailing `\r\n`. A length of -1 denotes the null
//         value and carries no payload at all.
// - `*` - array, a count line followed by that many encoded values
//         back-to-back with no extra separators
//
// For example
//   ```
//     :34\r\n
//     $5\r\nhello\r\n
//     *2\r\n$3\r\nGET\r\n$1\r\nk\r\n
//   ```
//
// Bulk strings are binary safe, their payload may contain `\r\n`. Simple
// strings, errors and integers are line oriented and may not.
//
// Decode works against a byte buffer that may hold several back-to-back
// frames, or a frame that has only partially arrived. It reports how many
// bytes it consumed so a streaming reader can keep the unconsumed suffix
// around and try again once more bytes have arrived. A buffer that does
// not yet hold a full frame is not an error, it is ErrIncomplete. A buffer
// that can never become a valid frame (unknown tag, non-numeric length) is
// ErrMalformedFrame and the decoder will not guess at a value for it.
//
// Commands sent to a server are always encoded as an array of bulk
// strings, one bulk string per argument token, even for single word
// commands. See NewCommand.
