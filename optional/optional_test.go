package optional

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestOptionalZeroValue(t *testing.T) {
	g := NewWithT(t)

	var o Optional[uint32]
	g.Expect(o.HasValue()).To(BeFalse())
	g.Expect(o.Get()).To(BeZero())
}

func TestOptionalSetAndReset(t *testing.T) {
	g := NewWithT(t)

	var o Optional[uint32]
	o.Set(0)
	g.Expect(o.HasValue()).To(BeTrue(), "setting the zero value still counts as set")
	g.Expect(o.Get()).To(Equal(uint32(0)))

	o.Set(7)
	g.Expect(o.Get()).To(Equal(uint32(7)))

	o.Reset()
	g.Expect(o.HasValue()).To(BeFalse())
	g.Expect(o.Get()).To(BeZero())
}

func TestOf(t *testing.T) {
	g := NewWithT(t)

	o := Of("present")
	g.Expect(o.HasValue()).To(BeTrue())
	g.Expect(o.Get()).To(Equal("present"))
}
