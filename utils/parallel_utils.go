package utils

import (
	"errors"
	"fmt"
	"sync"
)

// PartitionMap splits MaxIndex items (elements) into ParallelDegree contiguous ranges, one per rank,
// with a maximum imbalance of one item.
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		panic(fmt.Errorf("parallel degree must be positive, have %d", ParallelDegree))
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

// GetBucket returns the rank owning index k and that rank's range.
func (pm *PartitionMap) GetBucket(k int) (bucketNum, min, max int) {
	_, bucketNum, min, max = pm.getBucketWithTryCount(k)
	return
}

func (pm *PartitionMap) getBucketWithTryCount(k int) (tryCount, bucketNum, min, max int) {
	if k < 0 || k >= pm.MaxIndex {
		return 0, -1, 0, 0
	}
	// Initial guess
	bucketNum = int(float64(pm.ParallelDegree*k) / float64(pm.MaxIndex))
	for !(pm.Partitions[bucketNum][0] <= k && pm.Partitions[bucketNum][1] > k) {
		if pm.Partitions[bucketNum][0] > k {
			bucketNum--
		} else {
			bucketNum++
		}
		if bucketNum == -1 || bucketNum == pm.ParallelDegree {
			return 0, -1, 0, 0
		}
		tryCount++
	}
	min, max = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	if bn == -1 {
		kMax = pm.MaxIndex
		return
	}
	var (
		k1, k2 = pm.GetBucketRange(bn)
	)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

var ErrAborted = errors.New("a peer rank aborted")

// Comm coordinates a fixed set of ranks running as goroutines: a reusable barrier, and abort
// propagation so that a failing rank never leaves its peers waiting.
type Comm struct {
	size    int
	mu      sync.Mutex
	cond    *sync.Cond
	count   int
	gen     int
	aborted bool
}

func NewComm(size int) (c *Comm) {
	if size < 1 {
		panic(fmt.Errorf("communicator size must be positive, have %d", size))
	}
	c = &Comm{size: size}
	c.cond = sync.NewCond(&c.mu)
	return
}

func (c *Comm) Size() int { return c.size }

// Barrier blocks until every rank has reached it, or returns ErrAborted once any rank failed.
func (c *Comm) Barrier() error {
	if c == nil || c.size == 1 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.aborted {
		return ErrAborted
	}
	gen := c.gen
	c.count++
	if c.count == c.size {
		c.count = 0
		c.gen++
		c.cond.Broadcast()
		return nil
	}
	for gen == c.gen && !c.aborted {
		c.cond.Wait()
	}
	if gen == c.gen {
		return ErrAborted
	}
	return nil
}

func (c *Comm) abort() {
	c.mu.Lock()
	c.aborted = true
	c.cond.Broadcast()
	c.mu.Unlock()
}

// reset clears the barrier and a previous abort so the next Run starts clean.
func (c *Comm) reset() {
	c.mu.Lock()
	c.count, c.gen, c.aborted = 0, 0, false
	c.mu.Unlock()
}

// Run executes fn once per rank, concurrently, and returns the first non abort error.
// Runs on one Comm must not overlap.
func (c *Comm) Run(fn func(rank int) error) (err error) {
	c.reset()
	var (
		wg   sync.WaitGroup
		errs = make([]error, c.size)
	)
	for rank := 0; rank < c.size; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			if errs[rank] = fn(rank); errs[rank] != nil {
				c.abort()
			}
		}(rank)
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil && !errors.Is(e, ErrAborted) {
			return e
		}
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return
}
