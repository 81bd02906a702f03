// Package fuzztests houses Go fuzz harnesses for the two decoders that
// consume untrusted bytes: the compiler output parser and the record frame
// reader. They guard against panics, hangs and unbounded buffering on
// arbitrary input.
package fuzztests
