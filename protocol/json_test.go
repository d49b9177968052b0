package protocol_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/redsail/redsail/protocol"
)

var _ = Describe("JSON", func() {
	It("renders strings as JSON strings", func() {
		out, err := protocol.JSON(protocol.BulkString("hello"))
		Expect(err).To(Succeed())
		Expect(out).To(Equal(`"hello"`))
	})

	It("escapes string payloads", func() {
		out, err := protocol.JSON(protocol.BulkString("a\"b\r\n"))
		Expect(err).To(Succeed())

		parsed := gjson.Parse(out)
		Expect(parsed.Type).To(Equal(gjson.String))
		Expect(parsed.String()).To(Equal("a\"b\r\n"))
	})

	It("renders integers as JSON numbers", func() {
		out, err := protocol.JSON(protocol.Integer(34))
		Expect(err).To(Succeed())
		Expect(out).To(Equal("34"))
	})

	It("renders the null value as null", func() {
		out, err := protocol.JSON(protocol.Null)
		Expect(err).To(Succeed())
		Expect(out).To(Equal("null"))
	})

	It("renders errors as their message text", func() {
		out, err := protocol.JSON(protocol.ErrorString("ERR boom"))
		Expect(err).To(Succeed())
		Expect(out).To(Equal(`"ERR boom"`))
	})

	It("renders an empty array as []", func() {
		out, err := protocol.JSON(protocol.Array())
		Expect(err).To(Succeed())
		Expect(out).To(Equal("[]"))
	})

	It("renders arrays recursively", func() {
		out, err := protocol.JSON(protocol.Array(
			protocol.Integer(1),
			protocol.BulkString("a"),
			protocol.Null,
			protocol.Array(protocol.SimpleString("deep")),
		))
		Expect(err).To(Succeed())

		parsed := gjson.Parse(out)
		Expect(parsed.IsArray()).To(BeTrue())
		Expect(gjson.Get(out, "0").Int()).To(Equal(int64(1)))
		Expect(gjson.Get(out, "1").String()).To(Equal("a"))
		Expect(gjson.Get(out, "2").Type).To(Equal(gjson.Null))
		Expect(gjson.Get(out, "3.0").String()).To(Equal("deep"))
	})
})
