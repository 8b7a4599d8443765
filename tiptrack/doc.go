// Package tiptrack tracks exclusive allocation of physical consumables such
// as pipette tips across fixed-size racks. A Tracker keeps an in-memory
// occupancy view that is written through to a durable ledger on every
// mutation, so allocations survive process crashes and the same tip is never
// handed out twice.
package tiptrack
