package grid

import "fmt"

// Perforations stores the ordered perforated cells of every well in
// compressed form: well w perforates Cells[ConnPos[w]:ConnPos[w+1]]
type Perforations struct {
	ConnPos []int
	Cells   []int
}

// NewPerforations packs per-well cell lists, validating each cell index
func NewPerforations(wellCells [][]int, numCells int) (*Perforations, error) {
	p := &Perforations{
		ConnPos: make([]int, len(wellCells)+1),
	}
	for w, cells := range wellCells {
		if len(cells) == 0 {
			return nil, fmt.Errorf("well %d has no perforations", w)
		}
		for _, c := range cells {
			if c < 0 || c >= numCells {
				return nil, fmt.Errorf("well %d perforates cell %d outside [0,%d)", w, c, numCells)
			}
		}
		p.Cells = append(p.Cells, cells...)
		p.ConnPos[w+1] = len(p.Cells)
	}
	return p, nil
}

// NumWells returns the number of wells, zero for a nil receiver
func (p *Perforations) NumWells() int {
	if p == nil {
		return 0
	}
	return len(p.ConnPos) - 1
}

// NumPerforations returns the total number of well connections
func (p *Perforations) NumPerforations() int {
	if p == nil {
		return 0
	}
	return len(p.Cells)
}

// WellCells returns the perforated cells of well w
func (p *Perforations) WellCells(w int) []int {
	return p.Cells[p.ConnPos[w]:p.ConnPos[w+1]]
}
