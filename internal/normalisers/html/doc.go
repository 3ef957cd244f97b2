// Package html strips markup from HTML pages so linked web documents can be answered over.
package html
