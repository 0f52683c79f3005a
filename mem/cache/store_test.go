package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Store", func() {
	var (
		s     *Simulator
		store *Store
	)

	BeforeEach(func() {
		s = mustBuild(MakeBuilder().
			WithNumSets(2).
			WithWayAssociativity(2).
			WithLineSize(16))
		store = s.Store()
	})

	It("should start with every line invalid", func() {
		for i := 0; i < 2; i++ {
			lines, err := store.Lines(i)
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(HaveLen(2))

			for _, l := range lines {
				Expect(l.Valid).To(BeFalse())
				Expect(l.Age).To(BeZero())
			}
		}

		Expect(store.DirtyLines()).To(BeZero())
	})

	It("should expose copies of the lines", func() {
		mustAccess(s, write(1, 0x40))

		lines, err := store.Lines(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines[0]).To(Equal(LineState{
			Way: 0, Valid: true, Tag: 2, Dirty: true, Age: 0,
		}))

		lines[0].Valid = false

		again, _ := store.Lines(0)
		Expect(again[0].Valid).To(BeTrue())
	})

	It("should count dirty lines across sets", func() {
		mustAccess(s, write(1, 0x00))
		mustAccess(s, write(2, 0x10))
		mustAccess(s, read(3, 0x20))

		Expect(store.DirtyLines()).To(Equal(2))
	})

	It("should reject out-of-range set indices", func() {
		_, err := store.Lines(2)
		Expect(err).To(HaveOccurred())

		_, err = store.Lines(-1)
		Expect(err).To(HaveOccurred())

		Expect(func() { store.set(2) }).To(Panic())
	})

	It("should invalidate every line on reset", func() {
		mustAccess(s, write(1, 0x00))

		store.Reset()

		Expect(store.DirtyLines()).To(BeZero())

		out := mustAccess(s, read(2, 0x00))
		Expect(out.Hit).To(BeFalse())
	})
})
