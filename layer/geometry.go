package layer

import "github.com/gogpu/gputypes"

// The unit geometry drawn for every segment instance:
//
//	       _
//	        "-_ 1                   3                       5
//	     _     "o---------------------o-------------------_-o
//	       -   / ""--..__              '.             _.-' /
//	   _     "@- - - - - ""--..__- - - - x - - - -_.@'    /
//	    "-_  /                   ""--..__ '.  _,-` :     /
//	       "o----------------------------""-o'    :     /
//	      0,2                            4 / '.  :     /
//	                                      /   '.:     /
//	                                     /     :'.   /
//	                                    /     :  ', /
//	                                   /     :     o
//
// Four triangles: the start corner bevel, two body triangles and the end
// corner bevel.

// SegmentIndices is the index buffer of the segment geometry.
var SegmentIndices = []uint16{
	// start corner
	0, 1, 2,
	// body
	1, 4, 2,
	1, 3, 4,
	// end corner
	3, 5, 4,
}

// SegmentPositions holds two components per template vertex:
// [0] position on segment (0 start, 1 end) and
// [1] side of path (-1 left, 0 center joint, 1 right).
var SegmentPositions = []float32{
	// bevel start corner
	0, 0,
	// start inner corner
	0, -1,
	// start outer corner
	0, 1,
	// end inner corner
	1, -1,
	// end outer corner
	1, 1,
	// bevel end corner
	1, 0,
}

// segmentGeometryLayout is the per-vertex buffer of the template, bound at
// shader location 0.
var segmentGeometryLayout = gputypes.VertexBufferLayout{
	ArrayStride: 8,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{
			Format:         gputypes.VertexFormatFloat32x2,
			Offset:         0,
			ShaderLocation: 0,
		},
	},
}
