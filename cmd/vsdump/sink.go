package main

import "github.com/vsengine/vsengine/rules"

// tally accumulates how many times a resource type was seen and how
// many body bytes it carried.
type tally struct {
	count int
	bytes int
}

// dumpSink implements loader.Sink by recording counts instead of
// building any live engine state, the same "lightweight pass" role
// Sink.OnlyScanImage documents for archive-inspection tooling, just
// carried all the way through every resource type rather than only
// resource 0x43's header.
type dumpSink struct {
	counts map[string]*tally
}

func newDumpSink() *dumpSink {
	return &dumpSink{counts: make(map[string]*tally)}
}

func (s *dumpSink) add(name string, n int) {
	t, ok := s.counts[name]
	if !ok {
		t = &tally{}
		s.counts[name] = t
	}
	t.count++
	t.bytes += n
}

func (s *dumpSink) InitOrLoadSave(saveSlot int) error { return nil }
func (s *dumpSink) ReadData2(data []byte)             { s.add("data2", len(data)) }
func (s *dumpSink) InitMainDatas() error              { return nil }
func (s *dumpSink) ReadElementsConfig(data []byte)    { s.add("elements", len(data)) }

func (s *dumpSink) LoadBkg(pid uint32, data []byte) error {
	s.add("background", len(data))
	return nil
}

func (s *dumpSink) LoadGlobalActions(data []byte) error {
	if _, err := rules.ParseActions(data); err != nil {
		return err
	}
	s.add("global-action", len(data))
	return nil
}

func (s *dumpSink) SetObjectUnk1(pid uint32, v uint32) error {
	s.add("actor-unk1", 4)
	return nil
}

func (s *dumpSink) SetOnCreateAddress(pid, addr uint32) { s.add("actor-oncreate", 4) }
func (s *dumpSink) SetOnDeleteAddress(pid, addr uint32) { s.add("actor-ondelete", 4) }

func (s *dumpSink) ResizeActions(pid uint32, count int) error {
	s.add("actor-action-slots", count)
	return nil
}

func (s *dumpSink) ParseAction(pid uint32, idx int, data []byte) error {
	if _, err := rules.ParseActions(data); err != nil {
		return err
	}
	s.add("actor-action", len(data))
	return nil
}

func (s *dumpSink) SetActionConditionAddress(pid uint32, idx int, addr uint32) {
	s.add("actor-action-cond", 4)
}
func (s *dumpSink) SetActionFunctionAddress(pid uint32, idx int, addr uint32) {
	s.add("actor-action-func", 4)
}

func (s *dumpSink) SetThing38(pid uint32, data []byte) { s.add("family-membership", len(data)) }
func (s *dumpSink) SetThing39(pid uint32, data []byte) { s.add("family-directions", len(data)) }
func (s *dumpSink) SetThing3A(pid uint32, data []byte) { s.add("family-raw3a", len(data)) }

func (s *dumpSink) LoadRes40(pid uint32, data []byte) error {
	s.add("sprite-flags", len(data))
	return nil
}
func (s *dumpSink) LoadRes41(pid uint32, data []byte) error {
	s.add("sprite-sequences", len(data))
	return nil
}
func (s *dumpSink) LoadRes42(pid, p1 uint32, data []byte) error {
	s.add("sprite-seq-offsets", len(data))
	return nil
}
func (s *dumpSink) LoadRes43(pid, p1, p2 uint32, data []byte) error {
	s.add("sprite-frame", len(data))
	return nil
}

func (s *dumpSink) SetSoundSample(pid uint32, data []byte) { s.add("sound", len(data)) }
func (s *dumpSink) LoadMidi(pid uint32, data []byte) error {
	s.add("midi", len(data))
	return nil
}

func (s *dumpSink) ParseSubtitleActions(pid uint32, data []byte) error {
	s.add("subtitle-actions", len(data))
	return nil
}
func (s *dumpSink) SetSubtitlePoints(pid uint32, data []byte) error {
	s.add("subtitle-points", len(data))
	return nil
}

func (s *dumpSink) LoadXorSeq(seq int, data []byte) { s.add("xor-sequence", len(data)) }

func (s *dumpSink) SetConfigAddress(addr uint32) { s.add("config", 5) }

func (s *dumpSink) ReuseLastResource(tp byte, pid, p1, p2 uint32) error {
	s.add("reuse", 0)
	return nil
}

func (s *dumpSink) SetMovieOffset(pid uint32, pos int64) { s.add("movie-marker", 0) }

func (s *dumpSink) OnlyScanImage() bool { return true }

func (s *dumpSink) FinishModule(currentModuleID uint32) error { return nil }
