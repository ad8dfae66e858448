package protocol

// Score is a snapshot of a play's scoring record.
//
// HitTimings holds the per-hit offsets computed by the local engine. It is
// never sent on the wire: a host snapshot carries only the aggregate fields,
// and receivers keep their own timings when applying one.
type Score struct {
	Total    int64
	Combo    uint32
	MaxCombo uint32
	Accuracy float32
	Perfect  uint32
	Great    uint32
	Good     uint32
	Miss     uint32
	Health   float32

	HitTimings []float32
}

// WithHitTimings returns a copy of s carrying timings from local.
func (s Score) WithHitTimings(local Score) Score {
	s.HitTimings = local.HitTimings
	return s
}

// Hits returns the number of judged objects.
func (s Score) Hits() uint32 {
	return s.Perfect + s.Great + s.Good + s.Miss
}

func (s *Score) encode(e *Encoder) {
	e.WriteSvarint(s.Total)
	e.WriteUvarint(uint64(s.Combo))
	e.WriteUvarint(uint64(s.MaxCombo))
	e.WriteFloat32(s.Accuracy)
	e.WriteUvarint(uint64(s.Perfect))
	e.WriteUvarint(uint64(s.Great))
	e.WriteUvarint(uint64(s.Good))
	e.WriteUvarint(uint64(s.Miss))
	e.WriteFloat32(s.Health)
}

func decodeScore(d *Decoder) (Score, error) {
	var s Score
	var err error
	if s.Total, err = d.ReadSvarint(); err != nil {
		return s, err
	}
	counts := []*uint32{&s.Combo, &s.MaxCombo}
	for _, c := range counts {
		if *c, err = readUint32Varint(d); err != nil {
			return s, err
		}
	}
	if s.Accuracy, err = d.ReadFloat32(); err != nil {
		return s, err
	}
	counts = []*uint32{&s.Perfect, &s.Great, &s.Good, &s.Miss}
	for _, c := range counts {
		if *c, err = readUint32Varint(d); err != nil {
			return s, err
		}
	}
	if s.Health, err = d.ReadFloat32(); err != nil {
		return s, err
	}
	return s, nil
}

func readUint32Varint(d *Decoder) (uint32, error) {
	v, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if v > 0xFFFFFFFF {
		return 0, ErrVarintOverflow
	}
	return uint32(v), nil
}
