/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package control

import "fmt"

type ErrBucketNotFound struct {
	Name string
}

func (e ErrBucketNotFound) Error() string {
	return fmt.Sprintf("bucket not found: %s", e.Name)
}

type ErrKeyNotFound struct {
	Bucket string
	Key    string
}

func (e ErrKeyNotFound) Error() string {
	return fmt.Sprintf("key %s not found in bucket %s", e.Key, e.Bucket)
}

type ErrNotBooted struct {
	Board string
}

func (e ErrNotBooted) Error() string {
	return fmt.Sprintf("board %s has not been booted", e.Board)
}
