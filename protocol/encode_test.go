package protocol_test

import (
	"bytes"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/redsail/redsail/protocol"
)

var _ = Describe("Encode", func() {
	It("encodes simple strings", func() {
		Expect(protocol.Encode(protocol.SimpleString("hello"))).To(Equal([]byte("+hello\r\n")))
	})

	It("encodes errors", func() {
		Expect(protocol.Encode(protocol.ErrorString("hello"))).To(Equal([]byte("-hello\r\n")))
	})

	It("encodes integers", func() {
		Expect(protocol.Encode(protocol.Integer(34))).To(Equal([]byte(":34\r\n")))
		Expect(protocol.Encode(protocol.Integer(-34))).To(Equal([]byte(":-34\r\n")))
	})

	It("encodes bulk strings with a byte length prefix", func() {
		Expect(protocol.Encode(protocol.BulkString("hello"))).To(Equal([]byte("$5\r\nhello\r\n")))
	})

	It("uses the byte length, not the character count, for non-ASCII payloads", func() {
		// héllo is five characters but six bytes in UTF-8.
		Expect(protocol.Encode(protocol.BulkString("héllo"))).To(Equal([]byte("$6\r\nhéllo\r\n")))
	})

	It("encodes the null value as the bulk string of length -1", func() {
		Expect(protocol.Encode(protocol.Null)).To(Equal([]byte("$-1\r\n")))
	})

	It("encodes bulk strings with embedded CRLF, they are binary safe", func() {
		Expect(protocol.Encode(protocol.BulkString("a\r\nb"))).To(Equal([]byte("$4\r\na\r\nb\r\n")))
	})

	It("encodes an empty array as just the count line", func() {
		Expect(protocol.Encode(protocol.Array())).To(Equal([]byte("*0\r\n")))
	})

	It("encodes arrays as a count line followed by the encoded elements", func() {
		v := protocol.Array(
			protocol.ErrorString("hello"),
			protocol.Null,
			protocol.SimpleString("hello"),
			protocol.BulkString("hello"),
			protocol.Integer(34),
		)

		Expect(protocol.Encode(v)).To(Equal(
			[]byte("*5\r\n-hello\r\n$-1\r\n+hello\r\n$5\r\nhello\r\n:34\r\n")))
	})

	Describe("EncodeTo()", func() {
		It("writes the same bytes as Encode", func() {
			v := protocol.NewCommand("GET", "k")
			w := bytes.NewBuffer(nil)

			Expect(protocol.EncodeTo(w, v)).To(Succeed())
			Expect(w.Bytes()).To(Equal(protocol.Encode(v)))
		})
	})

	Describe("round-trips", func() {
		values := []protocol.Value{
			protocol.SimpleString("OK"),
			protocol.ErrorString("ERR unknown command"),
			protocol.Integer(0),
			protocol.Integer(-9223372036854775808),
			protocol.BulkString(""),
			protocol.BulkString("binary\r\nsafe\x00payload"),
			protocol.Null,
			protocol.Array(),
			protocol.NewCommand("SET", "key", "value"),
			protocol.Array(
				protocol.Array(protocol.Integer(1), protocol.Null),
				protocol.BulkString("nested"),
			),
		}

		It("decodes every encoded value back to itself, consuming every byte", func() {
			for _, v := range values {
				wire := protocol.Encode(v)

				got, consumed, err := protocol.Decode(wire)
				Expect(err).To(Succeed())
				Expect(consumed).To(Equal(len(wire)))
				Expect(got).To(Equal(v))
			}
		})
	})
})
