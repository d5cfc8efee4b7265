// Package vtest provides a harness for testing vtree trees and components.
//
// A Harness wires a Runtime to an in-memory host document and a manual
// scheduler, captures every reported error, and offers assertions on the
// rendered host tree.
//
// # Quick Start
//
//	func TestCounter(t *testing.T) {
//	    h := vtest.New(t)
//	    h.Define("counter", component.Config{
//	        Template: `<button key="inc" @click="inc">{{n}}</button>`,
//	        Props:    map[string]any{"n": 0},
//	        Methods: map[string]component.Method{
//	            "inc": func(c *component.Component, _ ...any) any {
//	                return c.SetProps(map[string]any{"n": c.Prop("n").(int) + 1})
//	            },
//	        },
//	    })
//	    h.Mount(h.New("counter", nil))
//	    h.Click("inc")
//	    h.ExpectText("inc", "1")
//	    h.ExpectNoErrors()
//	}
//
// # Time
//
// Nothing scheduled runs until the test asks: Settle runs every queued
// task and timer, Advance moves virtual time. Mount and the event helpers
// settle on their own.
//
// # Assertions
//
// ExpectText, ExpectContains, ExpectNotContains, ExpectAttribute and
// ExpectCodes report through t.Errorf, so a test keeps going after a
// failed expectation.
package vtest
